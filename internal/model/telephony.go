// 통신사(Twilio, Vapi) 인바운드 이벤트 페이로드 구조체를 정의

package model

// TwilioStatusCallback - Twilio 상태 콜백 (application/x-www-form-urlencoded)
type TwilioStatusCallback struct {
	CallSid    string `form:"CallSid"`
	CallStatus string `form:"CallStatus"`
	Duration   string `form:"CallDuration"`
}

// TwilioGather - Twilio <Gather> 키패드 입력 콜백
type TwilioGather struct {
	CallSid string `form:"CallSid"`
	Digits  string `form:"Digits"`
}

// VapiWebhook - Vapi 서버 URL로 전송되는 모든 이벤트
type VapiWebhook struct {
	Message VapiMessage `json:"message"`
}

// VapiMessage - 이벤트 본문
//
// Type:
//   - status-update: queued, ringing, in-progress, ended
//   - function-call: 어시스턴트가 함수를 호출함
//   - transcript: 실시간 전사
//   - end-of-call-report: 통화 종료 보고 (종료 사유, 전체 전사)
type VapiMessage struct {
	Type string `json:"type"`

	Call *struct {
		ID          string `json:"id"`
		Status      string `json:"status,omitempty"`
		EndedReason string `json:"endedReason,omitempty"`
	} `json:"call,omitempty"`

	FunctionCall *struct {
		Name       string         `json:"name"`
		Parameters map[string]any `json:"parameters"`
	} `json:"functionCall,omitempty"`

	Transcript  string `json:"transcript,omitempty"`
	EndedReason string `json:"endedReason,omitempty"`

	Artifact *struct {
		Transcript string `json:"transcript,omitempty"`
	} `json:"artifact,omitempty"`
}

// VapiFunctionResult - function-call 응답
type VapiFunctionResult struct {
	Result string `json:"result"`
}
