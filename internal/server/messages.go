package server

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
	"github.com/joseph-ayodele/fan-ledger/internal/staging"
)

func stringField(req *structpb.Struct, key string) string {
	v, ok := req.GetFields()[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

func listField(req *structpb.Struct, key string) ([]*structpb.Value, bool) {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil, false
	}
	return v.GetListValue().GetValues(), true
}

func sessionIDField(req *structpb.Struct) (uuid.UUID, error) {
	raw := stringField(req, "session_id")
	v := common.NewValidator().Field("session_id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

// decodeSources reads "images": [{"name": ..., "data": <base64>}].
func decodeSources(req *structpb.Struct) ([]ocr.Source, error) {
	values, _ := listField(req, "images")
	if len(values) == 0 {
		return nil, common.InvalidArgumentError("images is required")
	}
	sources := make([]ocr.Source, 0, len(values))
	for i, v := range values {
		img := v.GetStructValue()
		if img == nil {
			return nil, common.InvalidArgumentErrorf("images[%d] must be an object", i)
		}
		data, err := base64.StdEncoding.DecodeString(stringField(img, "data"))
		if err != nil || len(data) == 0 {
			return nil, common.InvalidArgumentErrorf("images[%d].data must be non-empty base64", i)
		}
		name := stringField(img, "name")
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		sources = append(sources, ocr.Source{Name: name, Data: data})
	}
	return sources, nil
}

// decodeEntries reads an operator-edited entry table. ok is false when the field is absent.
func decodeEntries(req *structpb.Struct) (entries []extract.Entry, ok bool, err error) {
	values, ok := listField(req, "entries")
	if !ok {
		return nil, false, nil
	}
	v := common.NewValidator()
	entries = make([]extract.Entry, 0, len(values))
	for i, item := range values {
		row := item.GetStructValue()
		if row == nil {
			return nil, true, common.InvalidArgumentErrorf("entries[%d] must be an object", i)
		}
		field := fmt.Sprintf("entries[%d].nickname", i)
		name := stringField(row, "nickname")
		v.Field(field, name, common.Required, common.MaxLen(common.MaxNicknameLength), common.NoControlChars)
		n := row.GetFields()["fan_count"].GetNumberValue()
		if n < 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
			return nil, true, common.InvalidArgumentErrorf("entries[%d].fan_count must be a non-negative integer", i)
		}
		entries = append(entries, extract.Entry{Nickname: name, FanCount: int64(n)})
	}
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, true, err
	}
	return staging.Aggregate(entries), true, nil
}

func entriesValue(entries []extract.Entry) []any {
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{"nickname": e.Nickname, "fan_count": e.FanCount})
	}
	return out
}

func sessionFields(sess *staging.Session) map[string]any {
	failures := make([]any, 0, len(sess.Failures))
	for _, f := range sess.Failures {
		failures = append(failures, map[string]any{"source": f.Source, "reason": f.Reason})
	}
	previews := make([]any, 0, len(sess.Previews))
	for _, p := range sess.Previews {
		previews = append(previews, map[string]any{
			"source": p.Source,
			"jpeg":   base64.StdEncoding.EncodeToString(p.JPEG),
		})
	}
	return map[string]any{
		"session_id": sess.ID.String(),
		"status":     string(sess.Status),
		"entries":    entriesValue(sess.Entries),
		"failures":   failures,
		"previews":   previews,
	}
}

func stringsValue(ss []string) []any {
	out := make([]any, 0, len(ss))
	for _, s := range ss {
		out = append(out, s)
	}
	return out
}
