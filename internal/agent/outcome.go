package agent

// Source - 결과가 어디서 나왔는지 (오라클 응답 파싱 성공 or 규칙 기반 대체값)
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Outcome - 오라클 호출 결과
// 파싱 실패는 예외 상황이 아니므로 error 대신 Source로 구분함
type Outcome[T any] struct {
	Value  T
	Source Source
}

// Parsed - 오라클 응답을 그대로 사용한 결과
func Parsed[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Source: SourceOracle}
}

// Fallback - 규칙 기반으로 만든 대체 결과
func Fallback[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, Source: SourceFallback}
}

func (o Outcome[T]) IsFallback() bool {
	return o.Source == SourceFallback
}
