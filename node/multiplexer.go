package node

// Ready is the result of one multiplexer wait.
type Ready struct {
	// Count is len(Read) + len(Write); a handle ready both ways counts twice.
	Count int
	Read  HandleSet
	Write HandleSet
}

// Multiplexer blocks until a handle in the interest sets is ready.
type Multiplexer interface {
	// Wait returns the subsets of readInterest and writeInterest that are
	// ready. highest is the largest handle in either set. An expected
	// wake-up returns ErrInterrupted; any other failure wraps ErrMultiplex.
	Wait(readInterest, writeInterest HandleSet, highest int) (Ready, error)

	// Wake interrupts a blocked or upcoming Wait. Safe from any goroutine.
	Wake() error

	Close() error
}
