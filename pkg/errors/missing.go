package errors

// Wiring errors raised during startup, before any request is served. Each is
// a plain value so it can be matched with errors.Is through an aggregate.

type ErrMissingStore struct{}

func (ErrMissingStore) Error() string { return "no memory store configured" }

type ErrMissingWebhook struct{}

func (ErrMissingWebhook) Error() string { return "no outbound webhook configured" }

type ErrMissingSecret struct{}

func (ErrMissingSecret) Error() string { return "no signing secret configured" }
