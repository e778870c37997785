package contextkeys

type contextKey string

// SessionKey — types.Session, положенная AuthMiddleware.
const SessionKey contextKey = "freight-portal.session"
