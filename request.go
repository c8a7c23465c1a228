package pokertableview

import "encoding/json"

// Command is the outbound envelope pushed to the server via the transport.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubscribeTablePayload struct {
	TableID string `json:"table_id"`
}

type UnsubscribeTablePayload struct {
	TableID string `json:"table_id"`
}

type ActionRequestPayload struct {
	TableID    string `json:"table_id"`
	ActionType string `json:"action_type"`
	Amount     int64  `json:"amount,omitempty"`
}

type SeatRequestPayload struct {
	TableID     string `json:"table_id"`
	BuyInAmount int64  `json:"buy_in_amount"`
}

type LeaveRequestPayload struct {
	TableID string `json:"table_id"`
}

type RebuyPayload struct {
	TableID string `json:"table_id"`
	Amount  int64  `json:"amount"`
}

func (c Command) GetJSON() ([]byte, error) {
	return json.Marshal(c)
}

func (c Command) UnmarshalPayload(out interface{}) error {
	return json.Unmarshal(c.Payload, out)
}

func newCommand(commandType string, payload interface{}) Command {
	cmd := Command{Type: commandType}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			cmd.Payload = data
		}
	}
	return cmd
}

func NewSubscribeTableCommand(tableID string) Command {
	return newCommand(CommandType_SubscribeTable, SubscribeTablePayload{TableID: tableID})
}

func NewUnsubscribeTableCommand(tableID string) Command {
	return newCommand(CommandType_UnsubscribeTable, UnsubscribeTablePayload{TableID: tableID})
}

func NewActionRequestCommand(tableID string, actionType string, amount int64) Command {
	return newCommand(CommandType_ActionRequest, ActionRequestPayload{
		TableID:    tableID,
		ActionType: actionType,
		Amount:     amount,
	})
}

func NewSeatRequestCommand(tableID string, buyInAmount int64) Command {
	return newCommand(CommandType_SeatRequest, SeatRequestPayload{
		TableID:     tableID,
		BuyInAmount: buyInAmount,
	})
}

func NewLeaveRequestCommand(tableID string) Command {
	return newCommand(CommandType_LeaveRequest, LeaveRequestPayload{TableID: tableID})
}

func NewRebuyCommand(tableID string, amount int64) Command {
	return newCommand(CommandType_Rebuy, RebuyPayload{TableID: tableID, Amount: amount})
}
