package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNoJSON - 응답에서 JSON 객체를 찾지 못함
var ErrNoJSON = errors.New("no JSON object in response")

var (
	jsonFence  = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	plainFence = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// ExtractJSON - 산문/코드펜스로 감싸진 응답에서 첫 번째 JSON 객체를 추출
//
// 순서: ```json 펜스 → ``` 펜스 → 본문에서 처음으로 디코딩 가능한 '{'
func ExtractJSON(text string) (json.RawMessage, error) {
	for _, re := range []*regexp.Regexp{jsonFence, plainFence} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if raw, ok := firstObject(m[1]); ok {
				return raw, nil
			}
		}
	}
	if raw, ok := firstObject(text); ok {
		return raw, nil
	}
	return nil, ErrNoJSON
}

func firstObject(s string) (json.RawMessage, bool) {
	for i := strings.IndexByte(s, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, false
}

// decode - 추출 → 언마샬 → 구조체 검증
func decode[T any](text string, v *validator.Validate) (T, error) {
	var out T
	raw, err := ExtractJSON(text)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal oracle response: %w", err)
	}
	if err := v.Struct(out); err != nil {
		return out, fmt.Errorf("invalid oracle response: %w", err)
	}
	return out, nil
}
