package launcher

// Exit codes the launcher returns itself, as opposed to forwarding the
// child's own code (§6.5).
const (
	ExitVerificationFailed = 1
	ExitIOError            = 2
	ExitPanic              = 3
	ExitConfigFailed       = 4
)
