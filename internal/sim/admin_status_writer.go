package sim

// AdminStatusWriter allows writers to receive HTTP API status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
