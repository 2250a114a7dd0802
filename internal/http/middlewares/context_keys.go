package middlewares

const (
	CtxRequestID = "request_id"
	CtxIdentity  = "session.identity"
)
