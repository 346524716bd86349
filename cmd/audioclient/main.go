// Command audioclient streams a WAV file to the transcription WebSocket and
// prints the transcripts it gets back. Useful for exercising the full
// pipeline against a running service.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"voicedine-service/internal/models"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

const chunkIntervalMs = 100

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16-bit mono PCM)")
	serverURL := flag.String("server", "ws://localhost:8080/ws/transcribe", "Transcription WebSocket URL")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if numChannels != 1 {
		log.Printf("Warning: %d channels, the service expects mono", numChannels)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	log.Printf("Connected to %s", *serverURL)

	// Print transcripts as they arrive.
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg models.TranscriptMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("Unreadable message: %s", data)
				continue
			}
			switch msg.Type {
			case models.MessageTranscript:
				log.Printf("[speaker %d] %s", msg.SpeakerID, msg.Text)
			case models.MessageError:
				log.Printf("Server error: %s", data)
			}
		}
	}()

	configMsg, _ := json.Marshal(models.ControlMessage{
		Type:       models.ControlConfig,
		SampleRate: int(sampleRate),
	})
	if err := conn.Write(ctx, websocket.MessageText, configMsg); err != nil {
		log.Fatalf("Failed to send config: %v", err)
	}

	// 100ms of audio per chunk to simulate real-time capture.
	chunkSize := int(sampleRate) * int(numChannels) * int(bitsPerSample) / 8 * chunkIntervalMs / 1000
	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		if err := conn.Write(ctx, websocket.MessageBinary, audioChunk[:n]); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}

		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, time.Since(startTime))

	commitMsg, _ := json.Marshal(models.ControlMessage{Type: models.ControlCommit})
	if err := conn.Write(ctx, websocket.MessageText, commitMsg); err != nil {
		log.Fatalf("Failed to send commit: %v", err)
	}

	// Leave time for the final flush to come back before closing.
	log.Println("Committed, waiting for final transcripts...")
	time.Sleep(5 * time.Second)
}
