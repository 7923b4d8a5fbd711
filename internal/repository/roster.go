package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/fan-ledger/constants"
	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

// RosterRepository manages the official member list kept in the first column of the
// roster tab.
type RosterRepository interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, nickname string) (bool, error)
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, nicknames ...string) (int, error)
}

type rosterRepository struct {
	store  Sheets
	tab    string
	logger *slog.Logger
}

func NewRosterRepository(store Sheets, tab string, logger *slog.Logger) RosterRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &rosterRepository{store: store, tab: tab, logger: logger}
}

// names reads column one trimmed, keeping row positions. A missing tab reads as empty.
func (r *rosterRepository) names(ctx context.Context) ([]string, error) {
	col, err := r.store.ReadColumn(ctx, r.tab, 1)
	if errors.Is(err, common.ErrTabMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range col {
		col[i] = strings.TrimSpace(col[i])
	}
	return col, nil
}

func (r *rosterRepository) List(ctx context.Context) ([]string, error) {
	col, err := r.names(ctx)
	if err != nil {
		r.logger.Error("failed to list roster", "tab", r.tab, "error", err)
		return nil, err
	}
	out := make([]string, 0, len(col))
	for _, name := range col {
		if name == "" || name == constants.NicknameHeader {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// Add appends nickname unless it is already listed, creating the tab with its header
// when needed.
func (r *rosterRepository) Add(ctx context.Context, nickname string) (bool, error) {
	name := strings.TrimSpace(nickname)
	if err := common.ValidateNickname("nickname", name); err != nil {
		return false, err
	}
	created, err := r.store.EnsureTab(ctx, r.tab)
	if err != nil {
		return false, fmt.Errorf("ensure roster tab: %w", err)
	}
	col, err := r.names(ctx)
	if err != nil {
		return false, err
	}
	if created || len(col) == 0 {
		if err := r.store.AppendRow(ctx, r.tab, []string{constants.NicknameHeader}); err != nil {
			return false, fmt.Errorf("write roster header: %w", err)
		}
	}
	for _, existing := range col {
		if existing == name {
			r.logger.Debug("roster.add.exists", "nickname", name)
			return false, nil
		}
	}
	if err := r.store.AppendRow(ctx, r.tab, []string{name}); err != nil {
		r.logger.Error("failed to add roster member", "nickname", name, "error", err)
		return false, err
	}
	r.logger.Info("roster.add.ok", "nickname", name)
	return true, nil
}

func (r *rosterRepository) Rename(ctx context.Context, oldName, newName string) error {
	from, to := strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if err := common.ValidateNickname("new_name", to); err != nil {
		return err
	}
	col, err := r.names(ctx)
	if err != nil {
		return err
	}
	row := -1
	for i, name := range col {
		if name == to {
			return common.NewAppError(common.CodeRoster, fmt.Sprintf("rename to %q", to), common.ErrNicknameExists)
		}
		if name == from && row < 0 {
			row = i + 1
		}
	}
	if row < 0 || from == constants.NicknameHeader {
		return common.NewAppError(common.CodeRoster, fmt.Sprintf("rename %q", from), common.ErrNicknameNotFound)
	}
	if err := r.store.UpdateCell(ctx, r.tab, row, 1, to); err != nil {
		r.logger.Error("failed to rename roster member", "from", from, "to", to, "error", err)
		return err
	}
	r.logger.Info("roster.rename.ok", "from", from, "to", to, "row", row)
	return nil
}

// Delete removes every row whose nickname is listed and reports how many went.
func (r *rosterRepository) Delete(ctx context.Context, nicknames ...string) (int, error) {
	want := make(map[string]bool, len(nicknames))
	for _, n := range nicknames {
		if n = strings.TrimSpace(n); n != "" && n != constants.NicknameHeader {
			want[n] = true
		}
	}
	if len(want) == 0 {
		return 0, nil
	}
	col, err := r.names(ctx)
	if err != nil {
		return 0, err
	}
	var rows []int
	for i, name := range col {
		if want[name] {
			rows = append(rows, i+1)
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := r.store.DeleteRows(ctx, r.tab, rows...); err != nil {
		r.logger.Error("failed to delete roster members", "count", len(rows), "error", err)
		return 0, err
	}
	r.logger.Info("roster.delete.ok", "rows", len(rows))
	return len(rows), nil
}
