package mqtt

import "github.com/sweeney/filament-monitor/internal/logic"

// Discard is a Publisher used when no broker is configured.
type Discard struct{}

func (Discard) PublishReadings(logic.Readings) error { return nil }
func (Discard) PublishWarning(WarningEvent) error    { return nil }
func (Discard) PublishSystem(SystemEvent) error      { return nil }
func (Discard) Close() error                         { return nil }
func (Discard) IsConnected() bool                    { return false }
