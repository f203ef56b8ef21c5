package wsmodels

type ServerMessage struct {
	ToUserID string `json:"-"`
	Time     string `json:"time"` // event time, RFC 3339
	Code     string `json:"code"` // event code
	Msg      string `json:"msg"`  // human readable text
	Data     any    `json:"data,omitempty"`
}

const ApprovalChangedCode = "approval_changed"
