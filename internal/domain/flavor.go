package domain

// FlashEventLines are appended to a flash-event notification
var FlashEventLines = []string{
	"Your Flash Event is active now. I've got a bad feeling about…",
	"Your Flash Event is active now. I'm not very optimistic about our odds.",
	"Your Flash Event is active now. You are being reminded. Please do not resist.",
	"There is a 97.6% chance of failure, but your Flash Event is active now.",
}

var ThanksLines = []string{
	"You're welcome :smile:",
	"You bet",
	":+1: Of course",
	"Anytime :sun_with_face: :full_moon_with_face:",
}

// ChatterLines answer any message the bot does not understand
var ChatterLines = []string{
	"I'll be there for you. The captain said I had to.",
	"There's a problem on the horizon: There is no horizon.",
	"That is a bad idea. I think so, and so does Cassian. What do I know? My specialty is just strategic analysis.",
	"Doesn't sound so bad to me.",
	"Not me... I can survive in space.",
	"Did you know that wasn't me?",
	"I've got a bad feeling about…",
	"Your behavior is continually unexpected.",
	"You are being reminded. Please do not resist.",
	"I can blend in. I'm an Imperial droid.",
	"The captain says you're a friend. I will not kill you.",
	"There were a lot of explosions for two people blending in.",
	"Congratulations, you're being rescued.",
	"I'd really rather not. The odds of the Coruscant Underworld Police showing up are one in 93 million.",
	"I find that answer vague and unconvincing.",
	"I'm not very optimistic about our odds.",
	"Quiet! And there's a fresh one if you mouth off again.",
	"There you are. I'm standing by as you requested.",
	"Would you like to know the probability of not getting the gear you want? It's high. It's very high.",
	"I'm capable of running my own diagnostics, thank you very much.",
}
