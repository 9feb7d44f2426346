package episode

// Progress observes a batch as it runs. Implementations must not block for long;
// they are called on the processing goroutine.
type Progress interface {
	UnitStarted(unit Unit, chars, chunks int)
	ChunkStarted(unit Unit, chunk Chunk)
	ChunkFinished(unit Unit, chunk Chunk, result StepResult)
	UnitFinished(result UnitResult)
}

// NopProgress ignores every event.
type NopProgress struct{}

func (NopProgress) UnitStarted(Unit, int, int) {}

func (NopProgress) ChunkStarted(Unit, Chunk) {}

func (NopProgress) ChunkFinished(Unit, Chunk, StepResult) {}

func (NopProgress) UnitFinished(UnitResult) {}
