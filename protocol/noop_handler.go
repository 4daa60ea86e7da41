package protocol

// NoOpHandler implements MessageHandler with no-op methods.
// Embed this and override only the methods you need.
type NoOpHandler struct{}

func (NoOpHandler) HandleTripStatus(*Envelope, *TripStatus)                   {}
func (NoOpHandler) HandleTripInvoicing(*Envelope, *TripInvoicing)             {}
func (NoOpHandler) HandleSegmentStatus(*Envelope, *SegmentStatus)             {}
func (NoOpHandler) HandleTripUpsert(*Envelope, *TripUpsert)                   {}
func (NoOpHandler) HandleTripVehicle(*Envelope, *TripVehicle)                 {}
func (NoOpHandler) HandleTripDelete(*Envelope, *TripDelete)                   {}
func (NoOpHandler) HandleSegmentUpsert(*Envelope, *SegmentUpsert)             {}
func (NoOpHandler) HandleResourceUpsert(*Envelope, *ResourceUpsert)           {}
func (NoOpHandler) HandleTripMoved(*Envelope, *TripMoved)                     {}
func (NoOpHandler) HandleTripMoveRejected(*Envelope, *TripMoveRejected)       {}
func (NoOpHandler) HandleSegmentMoved(*Envelope, *SegmentMoved)               {}
func (NoOpHandler) HandleSegmentMoveRejected(*Envelope, *SegmentMoveRejected) {}
func (NoOpHandler) HandleDecorationChanged(*Envelope, *DecorationChanged)     {}

var _ MessageHandler = NoOpHandler{}
