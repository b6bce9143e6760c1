// Package audit delivers secret-question audit events to a caller-supplied sink
// without blocking the authentication path.
//
// # Components
//
//   - [Event] is the record: event type, user, realm, credential, client IP, outcome.
//   - [Sink] consumes events; [NoOpSink], [ChannelSink] and [JSONWriterSink] ship here.
//   - [Dispatcher] relays events from a bounded queue on one goroutine.
//
// # What this package must NOT do
//
//   - Decide which events exist or when they fire; the Engine owns that.
//   - Import goSecretQ or any sibling internal package.
package audit
