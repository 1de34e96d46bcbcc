package featureflag

type Flag string

const (
	// Every entity of an overlapped bucket is visible, without testing its
	// box against the viewport.
	FlagDisableSimpleTest Flag = "DISABLE_SIMPLE_TEST"

	// Boxes are resolved again on every frame instead of only when dirty.
	FlagDisableDirtyTest Flag = "DISABLE_DIRTY_TEST"

	// Moving sprites are re-indexed by the frame handler with UpdateObject
	// instead of during the cull.
	FlagManualUpdate Flag = "MANUAL_UPDATE"

	// Entities without geometry keep their visibility.
	FlagSkipUnresolved Flag = "SKIP_UNRESOLVED"

	// The spatial hash only clears the visibility it set on the previous
	// cull.
	FlagIncrementalReset Flag = "INCREMENTAL_RESET"

	FlagDisableSmokeTest Flag = "DISABLE_SMOKE_TEST"
)

var knownFlags = []Flag{
	FlagDisableSimpleTest,
	FlagDisableDirtyTest,
	FlagManualUpdate,
	FlagSkipUnresolved,
	FlagIncrementalReset,
	FlagDisableSmokeTest,
}
