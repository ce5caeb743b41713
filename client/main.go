// Demo client: connects to a room as master or follower. The master
// runs a simulated local player and the snapshot reporter; followers
// run the reconciliation state machine against inbound snapshots.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/listenroom/chat"
	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/models"
	"github.com/wfunc/listenroom/network"
	"github.com/wfunc/listenroom/playback"
	"github.com/wfunc/listenroom/timer"
)

// simPlayer is a wall-clock simulated player, good enough to exercise
// the reporter and reconciler end to end.
type simPlayer struct {
	mu       sync.Mutex
	track    *models.TrackInfo
	playing  bool
	basePos  float64
	baseTime time.Time
}

func (p *simPlayer) Load(track models.TrackInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := track
	p.track = &t
	p.basePos = 0
	p.baseTime = time.Now()
	p.playing = false
	log.Printf("player: loaded %s (%s)", track.Name, track.SongID)
	return nil
}

func (p *simPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		p.baseTime = time.Now()
		p.playing = true
	}
	return nil
}

func (p *simPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.basePos = p.positionLocked()
		p.playing = false
	}
	return nil
}

func (p *simPlayer) Seek(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.basePos = seconds
	p.baseTime = time.Now()
	log.Printf("player: seek to %.1fs", seconds)
	return nil
}

func (p *simPlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *simPlayer) positionLocked() float64 {
	if !p.playing {
		return p.basePos
	}
	return p.basePos + time.Since(p.baseTime).Seconds()
}

func (p *simPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *simPlayer) Current() *models.TrackInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.track
}

func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomCode := flag.String("room", "", "6-digit room code")
	token := flag.String("token", "", "session token")
	role := flag.String("role", "follower", "master or follower")
	flag.Parse()
	logger.Init()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws",
		RawQuery: url.Values{"token": {*token}, "room": {*roomCode}}.Encode()}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	player := &simPlayer{}
	reconciler := playback.NewReconciler(player, playback.DriftTolerance)
	reconciler.SetOwner(*role == "master")

	var reporter *playback.Reporter
	if *role == "master" {
		timers := timer.NewTimerManager()
		defer timers.Stop()
		reporter = playback.NewReporter(player, func(snap models.PlaybackSnapshot) error {
			return send(c, network.MsgTypeReportPlayback, snap)
		}, timers, 5*time.Second)
		reporter.Start()
		defer reporter.Stop()
	}

	view := chat.NewView(0, "demo", func(content, clientKey string) error {
		return send(c, network.MsgTypeSendChat, map[string]string{
			"content": content, "clientKey": clientKey,
		})
	}, func() bool { return true })
	view.LoadHistory(nil) // demo client skips the history fetch

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]

			switch msgID {
			case network.MsgTypePlaybackSnapshot:
				var snap models.PlaybackSnapshot
				if err := json.Unmarshal(data, &snap); err == nil {
					if err := reconciler.Apply(snap); err != nil {
						log.Printf("reconcile: %v", err)
					}
				}
			case network.MsgTypeSyncRequest:
				if reporter != nil {
					reporter.OnSyncRequest()
				}
			case network.MsgTypeChatMessage:
				var msg models.ChatMessage
				if err := json.Unmarshal(data, &msg); err == nil {
					view.OnLive(msg)
					log.Printf("[chat] %s: %s", msg.Username, msg.Content)
				}
			case network.MsgTypeMasterModeChange:
				log.Println("master left listen mode, back to chat")
				reconciler.Exit()
			case network.MsgTypeDisband:
				log.Println("room disbanded")
				return
			default:
				log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
			}
		}
	}()

	// Enter listen mode and ask for the current snapshot so we do not
	// wait out a heartbeat interval.
	reconciler.Enter()
	send(c, network.MsgTypeSetMode, map[string]string{"mode": "listen"})
	if *role != "master" {
		send(c, network.MsgTypeRequestPlayback, struct{}{})
	}

	log.Println("Client started. Type a message, or 'play'/'pause' as master.")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			switch {
			case text == "play" && reporter != nil:
				player.Play()
				reporter.OnPlay()
			case text == "pause" && reporter != nil:
				player.Pause()
				reporter.OnPause()
			default:
				if _, err := view.Send(text); err != nil {
					log.Println("chat send error:", err)
				}
			}
		}
	}
}
