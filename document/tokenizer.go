package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the ratio used when no real tokenizer is available.
const CharsPerToken = 4

// Tokenizer counts tokens in a span of text.
type Tokenizer interface {
	CountTokens(text string) int
}

// EstimateTokenizer approximates one token per four characters.
type EstimateTokenizer struct{}

func (EstimateTokenizer) CountTokens(text string) int {
	return utf8.RuneCountInString(text) / CharsPerToken
}

// TiktokenTokenizer counts BPE tokens with the encoding used by Model.
type TiktokenTokenizer struct {
	Model    string
	encoding *tiktoken.Tiktoken
}

// getEncodingForModel returns the appropriate encoding name for a given model
func getEncodingForModel(model string) string {
	if strings.HasPrefix(model, "gpt-4o") {
		return "o200k_base"
	}

	if strings.HasPrefix(model, "gpt-4") ||
		strings.HasPrefix(model, "gpt-3.5-turbo") ||
		strings.HasPrefix(model, "text-embedding-") {
		return "cl100k_base"
	}

	if strings.HasPrefix(model, "code-") ||
		model == "text-davinci-002" ||
		model == "text-davinci-003" {
		return "p50k_base"
	}

	if model == "davinci" ||
		model == "curie" ||
		model == "babbage" ||
		model == "ada" {
		return "r50k_base"
	}

	// Local models (llama, nomic, titan...) have no public BPE table;
	// cl100k_base is a close enough proxy for budgeting.
	return "cl100k_base"
}

// NewTiktokenTokenizer loads the encoding for model. The first call may
// download the BPE ranks.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	encodingName := getEncodingForModel(model)
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, &SplitterError{
			Op:      "new_tiktoken_tokenizer",
			Message: fmt.Sprintf("failed to load encoding %s", encodingName),
			Err:     err,
		}
	}

	return &TiktokenTokenizer{
		Model:    model,
		encoding: encoding,
	}, nil
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
