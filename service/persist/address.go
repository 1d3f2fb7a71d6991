package persist

import "regexp"

var topicAddressPrefix = regexp.MustCompile(`^0x0{24}`)

// AddressFromTopic narrows a 32-byte event topic down to the 20-byte address
// it encodes by stripping the leading zero-padding. It must not be applied to
// a value that is already a 20-byte address.
func AddressFromTopic(topic string) string {
	return topicAddressPrefix.ReplaceAllString(topic, "0x")
}
