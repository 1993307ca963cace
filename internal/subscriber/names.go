package subscriber

import "math/rand"

const usernamePrefix = "Black"

// nouns is the fixed word list for generated display names.
var nouns = []string{
	"Cat", "Falcon", "Otter", "Raven", "Fox",
	"Badger", "Heron", "Lynx", "Marten", "Osprey",
	"Puffin", "Stoat", "Swift", "Tern", "Wolf",
	"Bear", "Crane", "Drake", "Egret", "Finch",
}

// RandomUsername generates a default two-token display name, e.g. "Black Otter".
func RandomUsername() string {
	return usernamePrefix + " " + nouns[rand.Intn(len(nouns))]
}
