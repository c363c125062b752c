package matchcore

import "github.com/rs/zerolog"

// LogNotifier is the default NotificationDispatcher. It records the
// event and reports success; real delivery (push/email/SMS) lives
// behind the caller's own dispatcher implementation.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier builds a logging dispatcher.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyNewMatch(viewerID, candidateID int) error {
	n.log.Info().Int("viewer_id", viewerID).Int("candidate_id", candidateID).
		Msg("match request sent")
	return nil
}

func (n *LogNotifier) NotifyMutualMatch(userA, userB int) error {
	n.log.Info().Int("user_a", userA).Int("user_b", userB).
		Msg("mutual match")
	return nil
}
