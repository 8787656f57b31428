package model

// LogRecord is a journal event rendered as an EVM log. BlockNumber carries
// the journal sequence number.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Timestamp   uint64   `json:"timestamp"`
}

// DecodeError records a log that could not be decoded.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Error       string `json:"error"`
}
