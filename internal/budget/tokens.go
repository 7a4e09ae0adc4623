package budget

import (
	"context"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Estimator counts prompt tokens. With a tokenizer encoding configured it
// uses tiktoken; otherwise a heuristic that counts words plus one token per
// non-ASCII rune, which overestimates slightly and keeps prompts safely
// inside the window.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

func NewEstimator(encoding string) *Estimator {
	if encoding == "" {
		return &Estimator{}
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logutil.GetLogger(context.Background()).Warn("tokenizer encoding unavailable, using heuristic",
			zap.String("encoding", encoding), zap.Error(err))
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	return count
}
