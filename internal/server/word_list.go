package server

// Word pools for memorable room codes. A code draws each word from a
// different pool.
var wordPools = [][]string{
	{
		"otter", "heron", "lynx", "badger", "falcon", "marten", "osprey", "bison", "gecko", "walrus",
		"panda", "koala", "fox", "hedgehog", "beaver", "dolphin", "narwhal", "penguin", "toucan", "robin",
	},
	{
		"maple", "cedar", "willow", "birch", "aspen", "juniper", "hazel", "alder", "spruce", "linden",
		"meadow", "canyon", "ridge", "harbor", "delta", "summit", "glacier", "lagoon", "prairie", "tundra",
	},
	{
		"amber", "cobalt", "crimson", "emerald", "indigo", "ivory", "saffron", "scarlet", "silver", "teal",
		"golden", "violet", "ochre", "sienna", "azure", "jade", "coral", "onyx", "pearl", "ruby",
	},
	{
		"brave", "calm", "swift", "bright", "gentle", "steady", "clever", "eager", "lucky", "merry",
		"quiet", "bold", "keen", "nimble", "proud", "sunny", "witty", "cozy", "jolly", "plucky",
	},
	{
		"comet", "orbit", "nebula", "rocket", "lantern", "pebble", "compass", "anchor", "beacon", "kite",
		"ember", "breeze", "echo", "pixel", "marble", "prism", "quill", "ripple", "spark", "thistle",
	},
	{
		"biscuit", "muffin", "waffle", "noodle", "dumpling", "pretzel", "toffee", "cocoa", "pepper", "ginger",
		"taco", "curry", "ramen", "samosa", "falafel", "gnocchi", "risotto", "paella", "kebab", "scone",
	},
}
