package notify

import (
	"fmt"
	"strconv"

	"github.com/102326/PyLab/internal/common/cnst"
)

// ChannelFor returns the notification channel of a user
func ChannelFor(userID string) string {
	return cnst.ChannelPrefix + userID
}

// ParseUserID checks that id is the decimal form of a numeric user id
// and returns it normalized.
func ParseUserID(id string) (string, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: %q", cnst.ErrInvalidUserID, id)
	}
	return FormatUserID(n), nil
}

// FormatUserID renders a numeric user id
func FormatUserID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
