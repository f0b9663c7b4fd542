// Package engine is the attendance engine: the process-wide context object
// that ties the detector to the ledger, registry, mode flag, status queue
// and remote publisher.
//
// ARCHITECTURE:
//
// Detection Flow:
// 1. The detector goroutine polls the reader and reports edges to the engine
// 2. CardPresented looks the UID up in the registry
// 3. Unknown UIDs only produce a card_detected event
// 4. Registered UIDs are signed in or out according to the current mode
// 5. Every successful ledger write triggers an asynchronous delta publish
// 6. The resulting event is pushed to the status queue for pollers
//
// Removal never signs anyone out; sign-out only happens when a registered
// card is presented in sign_out mode or through RecordSignOut.
//
// Control Surface:
// The HTTP layer and CLI call the exported methods (StartDetection,
// RecordSignIn, Profile, SyncNow, ...). Validation and storage faults are
// returned to the caller; hardware and read faults never leave the detector.
//
// Concurrency:
// The detector goroutine, request handlers, the periodic sync goroutine and
// async publishes may all run at once. Ledger and registry serialize their
// own load-modify-save; the mode flag is atomic; presence state lives behind
// the detector's mutex. Nothing waits on anything cyclically.
package engine
