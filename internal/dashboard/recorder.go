package dashboard

import "time"

// Recorder receives operational signals from the refresher and listener.
type Recorder interface {
	RefreshCompleted(duration time.Duration, err error)
	PushMessage(kind string)
	LinkChanged(status string)
	Reconnected()
}

type nopRecorder struct{}

func (nopRecorder) RefreshCompleted(time.Duration, error) {}
func (nopRecorder) PushMessage(string)                    {}
func (nopRecorder) LinkChanged(string)                    {}
func (nopRecorder) Reconnected()                          {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
