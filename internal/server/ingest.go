package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/pipeline"
)

var errOCRDisabled = common.NewAppError(common.CodeAuthMissing, "ocr is not configured", common.ErrAuthMissing)

// Analyze stages the entries read from the uploaded screenshots.
func (s *LedgerService) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.analyzer == nil {
		return nil, common.ToStatus(errOCRDisabled)
	}
	sources, err := decodeSources(req)
	if err != nil {
		return nil, err
	}
	logger := common.LoggerFrom(ctx, s.logger)

	sess, err := s.analyzer.Analyze(ctx, sources)
	if errors.Is(err, pipeline.ErrNothingRecognized) {
		logger.Warn("server.analyze.empty", "images", len(sources), "failed", len(sess.Failures))
		return nil, status.Errorf(codes.FailedPrecondition, "%v: %d of %d images failed",
			err, len(sess.Failures), len(sources))
	}
	if err != nil {
		logger.Error("server.analyze.failed", "error", err)
		return nil, common.ToStatus(err)
	}
	s.sessions.Put(sess)
	logger.Info("server.analyze.staged", "session_id", sess.ID, "entries", len(sess.Entries))
	return newStruct(sessionFields(sess))
}

// Commit merges a staged session, or the operator's edited table for it, into the ledger.
func (s *LedgerService) Commit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionIDField(req)
	if err != nil {
		return nil, err
	}
	reviewed, edited, err := decodeEntries(req)
	if err != nil {
		return nil, err
	}
	if !edited {
		reviewed = nil
	}
	ctx = common.WithSessionID(ctx, id.String())
	logger := common.LoggerFrom(ctx, s.logger)

	entries, err := s.sessions.Claim(id, reviewed)
	if err != nil {
		return nil, sessionStatus(id, err)
	}
	start := time.Now()
	res, err := s.committer.Commit(ctx, entries)
	if err != nil {
		s.sessions.Release(id)
		logger.Error("server.commit.failed", "error", err)
		return nil, common.ToStatus(err)
	}

	changes := make([]string, 0, len(res.Audit))
	for _, a := range res.Audit {
		changes = append(changes, a.String())
	}
	logger.Info("server.commit.ok",
		"date", res.Date,
		"changes", len(changes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return newStruct(map[string]any{
		"session_id": id.String(),
		"date":       res.Date,
		"members":    res.Members,
		"changes":    stringsValue(changes),
	})
}

// Cancel discards a staged session.
func (s *LedgerService) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := sessionIDField(req)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Cancel(id); err != nil {
		return nil, sessionStatus(id, err)
	}
	common.LoggerFrom(common.WithSessionID(ctx, id.String()), s.logger).Info("server.cancel.ok")
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, sessionStatus(id, err)
	}
	return newStruct(map[string]any{"session_id": id.String(), "status": string(sess.Status)})
}

// sessionStatus maps a session store error; sessions are evicted once the store is full,
// so an unknown id may have been valid earlier.
func sessionStatus(id uuid.UUID, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NotFoundError(fmt.Sprintf("session %s not found or expired", id))
	}
	return common.ToStatus(err)
}
