package chrono

import "time"

// API is the interface that anything depending on the system clock or the
// campus time zone should use.
type API interface {
	Now() time.Time
	Location() *time.Location
}

// StandardImpl reads the system clock.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl loads the named zone, the remote system reports every date
// in Asia/Shanghai wall-clock time.
func NewStandardImpl(zone string) (StandardImpl, error) {
	if zone == "" {
		zone = "Asia/Shanghai"
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, it is meant for tests.
type FixedImpl struct {
	At time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.At
}

func (f FixedImpl) Location() *time.Location {
	return f.At.Location()
}
