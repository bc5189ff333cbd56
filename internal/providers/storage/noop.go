package storage

import "context"

// NoOpStore is wired when no object-store endpoint is configured. Puts succeed
// without persisting anything and published URLs stay empty, so certificates
// are issued but never get a document link.
type NoOpStore struct{}

func NewNoOpStore() *NoOpStore {
	return &NoOpStore{}
}

func (s *NoOpStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	return nil
}

func (s *NoOpStore) PublicURL(key string) string {
	return ""
}
