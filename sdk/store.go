package sdk

// StoreLevel selects the backend scope an object lives in.
type StoreLevel int

const (
	UnknownLevel StoreLevel = iota
	ApplicationLevel
	UserLevel
)

func (l StoreLevel) String() string {
	switch l {
	case ApplicationLevel:
		return "application"
	case UserLevel:
		return "user"
	default:
		return "unknown"
	}
}

// StoreIdentifier routes an object's operations to a scope. User-level
// identifiers carry the session that owns the data.
type StoreIdentifier struct {
	level   StoreLevel
	session SessionToken
}

// ApplicationStore is the identifier for application-scoped data.
var ApplicationStore = StoreIdentifier{level: ApplicationLevel}

// NewStoreIdentifier builds an identifier. Every level except
// ApplicationLevel requires a valid session.
func NewStoreIdentifier(level StoreLevel, session SessionToken) (StoreIdentifier, error) {
	if level == ApplicationLevel {
		return ApplicationStore, nil
	}
	if session.IsFailed() {
		return StoreIdentifier{}, validationError(ErrInvalidSession, "%s store requires a session", level)
	}
	return StoreIdentifier{level: level, session: session}, nil
}

// Level returns the store level.
func (s StoreIdentifier) Level() StoreLevel {
	return s.level
}

// Session returns the owning session, FailedSession for application data.
func (s StoreIdentifier) Session() SessionToken {
	if s.session.token == "" {
		return FailedSession
	}
	return s.session
}

// IsSet reports whether the identifier was assigned.
func (s StoreIdentifier) IsSet() bool {
	return s.level != UnknownLevel || s.session.token != ""
}

// Equal compares level and token.
func (s StoreIdentifier) Equal(other StoreIdentifier) bool {
	return s.level == other.level && s.session.token == other.session.token
}
