package mqtt

import "fmt"

// Topics builds the bridge's topic names under a configurable prefix.
//
//	telldus/device/7/state
//	telldus/sensor/3
//	telldus/status
type Topics struct {
	Prefix string
}

func (t Topics) DeviceState(id string) string {
	return fmt.Sprintf("%s/device/%s/state", t.Prefix, id)
}

func (t Topics) Sensor(id string) string {
	return fmt.Sprintf("%s/sensor/%s", t.Prefix, id)
}

// Status carries the bridge's online/offline state, including the broker's
// last-will message.
func (t Topics) Status() string {
	return t.Prefix + "/status"
}
