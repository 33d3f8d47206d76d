package constants

// MediaWiki asks API consumers to identify themselves with a contact URL.
// https://meta.wikimedia.org/wiki/User-Agent_policy
const USER_AGENT = "wikifind/1.0.0 (+https://github.com/wikifind/wikifind)"
