package roster

type Metrics interface {
	CheckedIn(program string, entryType EntryType)
	InvalidCode()
	PickupVerified(program string)
	PickupRejected(program string)
}

type noopMetrics struct{}

func (noopMetrics) CheckedIn(string, EntryType) {}

func (noopMetrics) InvalidCode() {}

func (noopMetrics) PickupVerified(string) {}

func (noopMetrics) PickupRejected(string) {}
