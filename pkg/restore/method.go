package restore

import (
	"encoding/json"
)

// RestoreMethod is the restore path chosen on the new device.
type RestoreMethod string

const (
	RemoteBackup   RestoreMethod = "REMOTE_BACKUP"
	LocalBackup    RestoreMethod = "LOCAL_BACKUP"
	DeviceTransfer RestoreMethod = "DEVICE_TRANSFER"
	Decline        RestoreMethod = "DECLINE"
)

// ParseRestoreMethod maps s to a RestoreMethod. Unknown values map to Decline.
func ParseRestoreMethod(s string) RestoreMethod {
	switch m := RestoreMethod(s); m {
	case RemoteBackup, LocalBackup, DeviceTransfer, Decline:
		return m
	default:
		return Decline
	}
}

// Valid returns true if self is one of the known RestoreMethod.
func (self RestoreMethod) Valid() bool {
	return "" != self && ParseRestoreMethod(string(self)) == self
}

// UnmarshalJSON implements json.Unmarshaler.
func (self *RestoreMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); nil != err {
		return err
	}
	*self = ParseRestoreMethod(s)
	return nil
}

// MethodBody is the JSON body of restore_account requests & responses.
type MethodBody struct {
	Method RestoreMethod `json:"method"`
}
