package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

// ListRoster returns the official member list.
func (s *LedgerService) ListRoster(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	names, err := s.roster.List(ctx)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return newStruct(map[string]any{"members": stringsValue(names)})
}

// AddMember appends a nickname; "added" is false when it was already listed.
func (s *LedgerService) AddMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	added, err := s.roster.Add(ctx, stringField(req, "nickname"))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return newStruct(map[string]any{"added": added})
}

func (s *LedgerService) RenameMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, to := stringField(req, "old_name"), stringField(req, "new_name")
	if from == "" {
		return nil, common.InvalidArgumentError("old_name is required")
	}
	if err := s.roster.Rename(ctx, from, to); err != nil {
		return nil, common.ToStatus(err)
	}
	return newStruct(map[string]any{"old_name": from, "new_name": to})
}

// DeleteMembers removes every listed nickname and reports how many rows went.
func (s *LedgerService) DeleteMembers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	values, _ := listField(req, "nicknames")
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.GetStringValue())
	}
	if len(names) == 0 {
		return nil, common.InvalidArgumentError("nicknames is required")
	}
	n, err := s.roster.Delete(ctx, names...)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return newStruct(map[string]any{"deleted": n})
}
