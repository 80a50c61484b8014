package testframes

import (
	"context"
	"fmt"
	"log"
)

// verifyResults fetches every session snapshot and checks the observed blink
// count against the number of blinks scripted into the frame sequence.
func verifyResults(ctx context.Context, config *Config, sessions map[string][]Frame, stats *Stats) error {
	log.Println("Verifying session snapshots...")

	client := newHTTPClient(config.Timeout)

	for sessionID, frames := range sessions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		snap, err := fetchSnapshot(ctx, client, config.BaseURL, sessionID)
		if err != nil {
			log.Printf("session %s: %v", sessionID, err)
			continue
		}
		stats.SessionsChecked++

		correct := true
		if snap.BlinkCount != config.NumBlinks {
			correct = false
			log.Printf("session %s: expected %d blinks, observed %d",
				sessionID, config.NumBlinks, snap.BlinkCount)
		}
		if snap.FramesSeen != int64(len(frames)) {
			correct = false
			log.Printf("session %s: expected %d frames seen, observed %d",
				sessionID, len(frames), snap.FramesSeen)
		}
		if snap.BlinkCount > 0 && snap.AverageRate <= 0 {
			correct = false
			log.Printf("session %s: blinks counted but average rate is %.3f",
				sessionID, snap.AverageRate)
		}

		if correct {
			stats.SessionsCorrect++
			if config.Verbose {
				log.Printf("session %s: blinks=%d avgRate=%.2f currentRate=%.2f",
					sessionID, snap.BlinkCount, snap.AverageRate, snap.CurrentRate)
			}
		}
	}

	if stats.SessionsChecked == 0 {
		return fmt.Errorf("no session snapshots retrieved")
	}

	log.Printf("Verification completed: %d/%d sessions match the script",
		stats.SessionsCorrect, stats.SessionsChecked)
	return nil
}
