// Package guard suppresses duplicate and overlapping upload requests.
//
// A Guard holds one in-flight flag and a short-lived set of recently allowed
// upload fingerprints. Check allows a request only when no upload is in
// flight and the same fingerprint was not allowed within the duplicate
// window. The in-flight flag clears when the cooldown elapses, so a stalled
// upload can never wedge the guard. Do, and holders of a Ticket from
// Acquire, may clear it earlier, but only while their claim is still the
// current one.
//
//	g := guard.New(guard.Config{})
//	err := g.Do(ctx, guard.File{Name: "a.png", Size: 1024, LastModified: mod}, upload)
//	if errors.Is(err, guard.ErrDuplicate) {
//	    // same file submitted twice
//	}
package guard
