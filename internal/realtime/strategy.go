package realtime

import (
	"math/rand"
	"time"
)

// Randomizer picks canned texts and auto-reply delays. *rand.Rand satisfies it.
// The Hub only calls it from its event loop.
type Randomizer interface {
	Intn(n int) int
	Int63n(n int64) int64
}

func defaultRandomizer() Randomizer {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// pick returns a uniformly chosen entry of list.
func pick(r Randomizer, list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[r.Intn(len(list))]
}

// between returns a uniformly chosen duration in [lo, hi].
func between(r Randomizer, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Int63n(int64(hi-lo)+1))
}

// DefaultAutoReplies are the operator replies sent after a visitor chats.
var DefaultAutoReplies = []string{
	"Thanks for your message! I'll get back to you soon.",
	"Great question! Let me know if you need more details.",
	"I appreciate your interest in my work!",
	"Feel free to ask anything about my projects.",
	"Thanks for visiting my portfolio!",
}

// DefaultAnnouncements are broadcast by the announcement sweep.
var DefaultAnnouncements = []string{
	"Welcome to my portfolio! Feel free to explore my projects.",
	"Check out my latest projects in the projects section!",
	"Have questions? Use the live chat to get in touch!",
	"Don't forget to check out my skills and experience!",
	"Thanks for visiting! I hope you enjoy exploring my work.",
}
