// Sentry 이슈 웹훅 페이로드 구조체를 정의
// handler에서 파싱하고 service(enricher)에서 ErrorContext로 변환

package model

// SentryWebhook - Sentry issue alert 웹훅 페이로드
type SentryWebhook struct {
	// created, resolved, assigned, archived, unresolved (연동 테스트 시 test)
	Action string `json:"action"`

	Installation struct {
		UUID string `json:"uuid"`
	} `json:"installation"`

	Data struct {
		Issue *SentryIssue `json:"issue"`
		Event *SentryEvent `json:"event"`
	} `json:"data"`

	Actor struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
	} `json:"actor"`
}

// SentryIssue - 그룹핑된 이슈 정보
type SentryIssue struct {
	ID        string `json:"id"`
	ShortID   string `json:"shortId"`
	Title     string `json:"title"`
	Culprit   string `json:"culprit"`
	Permalink string `json:"permalink"`

	// fatal, error, warning, info, debug
	Level    string `json:"level"`
	Status   string `json:"status"`
	Platform string `json:"platform"`
	Type     string `json:"type"`

	Metadata struct {
		Value    string `json:"value"`
		Type     string `json:"type"`
		Filename string `json:"filename,omitempty"`
		Function string `json:"function,omitempty"`
	} `json:"metadata"`

	UserCount int `json:"userCount"`

	// Count: Sentry가 문자열로 전송함
	Count     string      `json:"count"`
	FirstSeen string      `json:"firstSeen"`
	LastSeen  string      `json:"lastSeen"`
	Tags      []SentryTag `json:"tags"`
}

// SentryTag - 이슈 태그 (service, severity 태그로 분류)
type SentryTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// SentryEvent - 이슈를 발생시킨 개별 이벤트
type SentryEvent struct {
	EventID   string            `json:"event_id"`
	Exception *SentryExceptions `json:"exception,omitempty"`
	User      *struct {
		ID    string `json:"id,omitempty"`
		Email string `json:"email,omitempty"`
	} `json:"user,omitempty"`
}

// SentryException - 예외 정보와 스택 프레임
type SentryException struct {
	Type       string            `json:"type"`
	Value      string            `json:"value"`
	Stacktrace *SentryStacktrace `json:"stacktrace,omitempty"`
}

// SentryExceptions - 체인된 예외 목록
type SentryExceptions struct {
	Values []SentryException `json:"values"`
}

// SentryStacktrace - 프레임 목록 (가장 안쪽 프레임이 마지막)
type SentryStacktrace struct {
	Frames []SentryFrame `json:"frames"`
}

// SentryFrame - 스택 프레임 1개
type SentryFrame struct {
	Filename string `json:"filename"`
	Function string `json:"function"`
	Lineno   int    `json:"lineno"`
	Colno    int    `json:"colno"`
}
