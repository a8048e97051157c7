// README: Shared-ride fare schedule.
package pricing

// Rate is a flat fare schedule: a base charge per trip plus a charge per rider.
type Rate struct {
	BaseFare     int64
	PerPassenger int64
	Currency     string
}

// DefaultRate is the schedule every vehicle settles rides with.
var DefaultRate = Rate{
	BaseFare:     300,
	PerPassenger: 150,
	Currency:     "PKR",
}
