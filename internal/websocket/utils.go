// internal/websocket/utils.go
package websocket

import "encoding/json"

// MapToStruct converts a decoded message payload into target.
func MapToStruct(data interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
