package session

import (
	"context"

	"github.com/Rrens/greenbite/internal/security"
	"github.com/Rrens/greenbite/internal/tokenstore"
)

type deviceKey struct{}

// WithDevice attaches the browser's device id to ctx
func WithDevice(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceKey{}, deviceID)
}

// DeviceID returns the device id attached by WithDevice
func DeviceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceKey{}).(string)
	return id, ok && id != ""
}

// Stores hands out the token store of each device. Every device gets its own
// key namespace in the shared KV; values are sealed when an encryptor is set.
type Stores struct {
	kv        tokenstore.KV
	encryptor *security.Encryptor
}

func NewStores(kv tokenstore.KV, encryptor *security.Encryptor) *Stores {
	return &Stores{kv: kv, encryptor: encryptor}
}

// Namespace is the key prefix of a device's storage
func Namespace(deviceID string) string {
	return "device:" + deviceID + ":"
}

// For returns the token store of deviceID. Sealing happens below the
// namespace so a value copied to another device does not open.
func (s *Stores) For(deviceID string) *tokenstore.Store {
	kv := s.kv
	if s.encryptor != nil {
		kv = tokenstore.Encrypted(kv, s.encryptor)
	}
	return tokenstore.New(tokenstore.Prefixed(kv, Namespace(deviceID)))
}

// FromContext returns the token store of the device attached to ctx.
// Requests without a device all share the "anonymous" namespace; the Device
// middleware attaches an id to every routed request.
func (s *Stores) FromContext(ctx context.Context) *tokenstore.Store {
	id, ok := DeviceID(ctx)
	if !ok {
		id = "anonymous"
	}
	return s.For(id)
}
