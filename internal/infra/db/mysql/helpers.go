package mysql

import (
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

// marshalAnswers never stores SQL NULL; an empty set is "{}".
func marshalAnswers(as audit.Answers) ([]byte, error) {
	if as == nil {
		as = audit.Answers{}
	}
	b, err := json.Marshal(as)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return b, nil
}

func unmarshalAnswers(b []byte) (audit.Answers, error) {
	as := audit.Answers{}
	if len(b) == 0 {
		return as, nil
	}
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if as == nil {
		as = audit.Answers{}
	}
	return as, nil
}
