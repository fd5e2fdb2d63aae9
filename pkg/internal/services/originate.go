package services

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/voxlink/voxlink/pkg/internal/ami"
	"github.com/voxlink/voxlink/pkg/internal/models"
)

// originateIntent remembers a pending click-to-dial so the leg the PBX
// brings up can carry the business record that started it.
type originateIntent struct {
	Ref     models.Ref
	Exten   string
	Expires time.Time
}

var (
	intentMutex sync.Mutex
	intents     = make(map[string]originateIntent)
)

func intentKey(serverID uint, channelShort string) string {
	return fmt.Sprintf("%d/%s", serverID, channelShort)
}

func putOriginateIntent(serverID uint, channelShort string, intent originateIntent) {
	intentMutex.Lock()
	defer intentMutex.Unlock()
	intents[intentKey(serverID, channelShort)] = intent
}

func takeOriginateIntent(serverID uint, channelShort string) *originateIntent {
	intentMutex.Lock()
	defer intentMutex.Unlock()
	key := intentKey(serverID, channelShort)
	intent, ok := intents[key]
	if !ok {
		return nil
	}
	delete(intents, key)
	if time.Now().After(intent.Expires) {
		return nil
	}
	return &intent
}

// ChanSpy options. Quiet listening, whispering to the spied channel,
// or barging into the conversation.
const (
	SpyListen  = "q"
	SpyWhisper = "qw"
	SpyBarge   = "qB"
)

func spyCallerID(option string) string {
	switch option {
	case SpyListen:
		return "Spy"
	case SpyWhisper:
		return "Whisper"
	case SpyBarge:
		return "Barge"
	default:
		return "Unknown"
	}
}

// Spy bridges the user's channels onto the parent leg of an ongoing
// call through the ChanSpy application.
func Spy(userID uint, call models.Call, option string) error {
	pbxUser, err := GetPbxUser(userID, call.ServerID)
	if err != nil {
		return fmt.Errorf("PBX user is not configured")
	}
	if len(pbxUser.Channels) == 0 {
		return fmt.Errorf("user has no channels to originate")
	}

	parent, err := ParentChannel(call)
	if err != nil {
		return fmt.Errorf("parent channel for the call not found")
	}

	client, err := ManagerClient(call.ServerID)
	if err != nil {
		return err
	}

	sent := 0
	for _, userChannel := range pbxUser.Channels {
		if !userChannel.OriginateEnabled {
			log.Info().Uint("user", userID).Str("channel", userChannel.Name).
				Msg("User channel not enabled to originate.")
			continue
		}
		err := client.Send(ami.Action{
			"Action":      "Originate",
			"Async":       "true",
			"Channel":     userChannel.Name,
			"Application": "ChanSpy",
			"Data":        fmt.Sprintf("%s,%s", parent.Name, option),
			"CallerID":    fmt.Sprintf("%s <%s>", spyCallerID(option), pbxUser.Exten),
		})
		if err != nil {
			return err
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("user has no channels to originate")
	}
	return nil
}

func Listen(userID uint, call models.Call) error {
	return Spy(userID, call, SpyListen)
}

func Whisper(userID uint, call models.Call) error {
	return Spy(userID, call, SpyWhisper)
}

func Barge(userID uint, call models.Call) error {
	return Spy(userID, call, SpyBarge)
}

// Originate places a call from every originate-enabled channel of the
// user towards the number. Validation failures surface to the actor
// with a readable reason and leave no state behind.
func Originate(userID, serverID uint, number string, ref *models.Ref) error {
	pbxUser, err := GetPbxUser(userID, serverID)
	if err != nil {
		return fmt.Errorf("PBX user is not configured")
	}
	if len(pbxUser.Channels) == 0 {
		return fmt.Errorf("user has no channels to originate")
	}

	client, err := ManagerClient(serverID)
	if err != nil {
		return err
	}

	timeout := viper.GetInt("originate.timeout")
	if timeout == 0 {
		timeout = 60
	}

	sent := 0
	for _, userChannel := range pbxUser.Channels {
		if !userChannel.OriginateEnabled {
			log.Info().Uint("user", userID).Str("channel", userChannel.Name).
				Msg("User channel not enabled to originate.")
			continue
		}
		err := client.Send(ami.Action{
			"Action":   "Originate",
			"Async":    "true",
			"Channel":  userChannel.Name,
			"Context":  viper.GetString("originate.context"),
			"Exten":    number,
			"Priority": "1",
			"CallerID": fmt.Sprintf("%s <%s>", pbxUser.Name, pbxUser.Exten),
			"Timeout":  strconv.Itoa(timeout * 1000),
		})
		if err != nil {
			return err
		}
		if ref != nil {
			putOriginateIntent(serverID, userChannel.Name, originateIntent{
				Ref:     *ref,
				Exten:   number,
				Expires: time.Now().Add(time.Duration(timeout) * time.Second),
			})
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("user has no channels to originate")
	}
	return nil
}
