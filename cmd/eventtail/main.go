// Command eventtail consumes the service's Kafka topics and prints events as
// they arrive. Handy for watching transcripts and extracted requirements
// flow during a demo.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"voicedine-service/internal/models"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicTranscripts := flag.String("topic-transcripts", "voicedine.transcripts.final", "Final transcript topic")
	topicRequirements := flag.String("topic-requirements", "voicedine.requirements.extracted", "Extracted requirements topic")
	since := flag.Duration("since", time.Hour, "Replay messages from this far back")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go consume(ctx, *brokers, *topicTranscripts, *since, printTranscript)
	go consume(ctx, *brokers, *topicRequirements, *since, printRequirements)

	log.Printf("Tailing topics %s, %s on %s", *topicTranscripts, *topicRequirements, *brokers)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func consume(ctx context.Context, brokers, topic string, since time.Duration, handle func([]byte)) {
	// Partition reader without a consumer group: works through a
	// port-forward and needs no group coordination for a demo tail.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	reader.SetOffsetAt(ctx, time.Now().Add(-since))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error on %s: %v", topic, err)
			time.Sleep(time.Second)
			continue
		}
		handle(msg.Value)
	}
}

func printTranscript(value []byte) {
	var event models.TranscriptFinalEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("Unreadable transcript event: %v", err)
		return
	}
	log.Printf("[%s #%d speaker %d] %s", event.SessionID, event.Sequence, event.SpeakerID, truncate(event.Text, 80))
}

func printRequirements(value []byte) {
	var event models.RequirementsExtractedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("Unreadable requirements event: %v", err)
		return
	}
	log.Printf("[%s] requirements: %s", event.RequestID, strings.Join(event.Requirements, "; "))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
