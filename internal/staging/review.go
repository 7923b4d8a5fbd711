package staging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
)

// Review is the file the operator edits between analyze and commit.
type Review struct {
	SessionID string          `json:"session_id,omitempty"`
	Entries   []extract.Entry `json:"entries"`
}

// reviewSchema describes the review file. Counts must be whole and non-negative.
var reviewSchema = map[string]any{
	"type":     "object",
	"required": []string{"entries"},
	"properties": map[string]any{
		"session_id": map[string]any{"type": "string"},
		"entries": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"required":             []string{"nickname", "fan_count"},
				"additionalProperties": false,
				"properties": map[string]any{
					"nickname":  map[string]any{"type": "string", "minLength": 1, "pattern": `\S`},
					"fan_count": map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	},
}

var compiledReviewSchema = mustCompileSchema(reviewSchema)

func mustCompileSchema(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal review schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("review.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add review schema: %v", err))
	}
	return compiler.MustCompile("review.json")
}

// WriteReview writes the session's table as indented JSON.
func WriteReview(w io.Writer, sess *Session) error {
	rv := Review{SessionID: sess.ID.String(), Entries: sess.Entries}
	if rv.Entries == nil {
		rv.Entries = []extract.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rv)
}

// ReadReview validates and decodes an edited review file. Nicknames are trimmed and the
// table is re-aggregated so edits that introduce duplicates still obey max-wins.
func ReadReview(r io.Reader) (Review, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Review{}, fmt.Errorf("read review: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Review{}, common.NewAppError(common.CodeInvalidInput, "review is not valid JSON", errors.Join(common.ErrValidation, err))
	}
	if err := compiledReviewSchema.Validate(v); err != nil {
		return Review{}, common.NewAppError(common.CodeInvalidInput, "review does not match schema", errors.Join(common.ErrValidation, err))
	}

	var rv Review
	if err := json.Unmarshal(data, &rv); err != nil {
		return Review{}, common.NewAppError(common.CodeInvalidInput, "decode review", errors.Join(common.ErrValidation, err))
	}
	for i := range rv.Entries {
		rv.Entries[i].Nickname = strings.TrimSpace(rv.Entries[i].Nickname)
		if err := common.ValidateNickname("nickname", rv.Entries[i].Nickname); err != nil {
			return Review{}, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("entry %d", i), err)
		}
	}
	rv.Entries = Aggregate(rv.Entries)
	return rv, nil
}

// WriteReviewFile writes the review to path, replacing any previous file.
func WriteReviewFile(path string, sess *Session) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create review file: %w", err)
	}
	if err := WriteReview(f, sess); err != nil {
		f.Close()
		return fmt.Errorf("write review file: %w", err)
	}
	return f.Close()
}

func ReadReviewFile(path string) (Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return Review{}, fmt.Errorf("open review file: %w", err)
	}
	defer f.Close()
	return ReadReview(f)
}
