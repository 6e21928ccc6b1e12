package script

// Params is the identity handed to a model's constructor when a bot is
// spawned.
type Params struct {
	BotID      uint32
	InternalID uint64
	GlobalID   uint64
}
