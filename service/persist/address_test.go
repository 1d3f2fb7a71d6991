package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressFromTopicStripsZeroPadding(t *testing.T) {
	topic := "0x0000000000000000000000002222222222222222222222222222222222222222"
	assert.Equal(t, "0x2222222222222222222222222222222222222222", AddressFromTopic(topic))
}

func TestAddressFromTopicLeavesValuesWithoutThatMuchPaddingAlone(t *testing.T) {
	notAnAddress := "0x1234000000000000000000000000000000000000000000000000000000000007"
	assert.Equal(t, notAnAddress, AddressFromTopic(notAnAddress))
}
