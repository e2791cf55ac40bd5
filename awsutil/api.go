package awsutil

import "github.com/mongodb/grip/message"

// MakeAPILogMessage creates a message to log information about an API call.
// It deliberately names the operation only - Secrets Manager request inputs
// carry secret material and must never reach the logger.
func MakeAPILogMessage(op string) message.Fields {
	return message.Fields{
		"message": "performing API request",
		"op":      op,
	}
}
