package agent

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

// OutputRow is a coin output seen in a committed block.
type OutputRow struct {
	Id          string `gorm:"primary_key" json:"id"`
	Height      uint64 `json:"height"`
	Contract    string `gorm:"index" json:"contract"`
	Owner       string `gorm:"index" json:"owner"`
	Symbol      string `json:"symbol"`
	Issuer      string `json:"issuer"`
	Decimals    int32  `json:"decimals"`
	Amount      string `json:"amount"`
	Minted      bool   `json:"minted"`
	Spent       bool   `gorm:"index" json:"spent"`
	SpentHeight uint64 `json:"spent_height"`
}

func (OutputRow) TableName() string {
	return "outputs"
}

// ReceiptRow is the receipt of one output of a successful action.
type ReceiptRow struct {
	Id       string `gorm:"primary_key" json:"id"`
	Height   uint64 `json:"height"`
	Action   string `gorm:"index" json:"action"`
	Contract string `gorm:"index" json:"contract"`
	Caller   string `json:"caller"`
	Owner    string `gorm:"index" json:"owner"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Payload  string `gorm:"type:text" json:"payload"`
}

func (ReceiptRow) TableName() string {
	return "receipts"
}

type GovernanceRow struct {
	Contract  string `gorm:"primary_key" json:"contract"`
	Height    uint64 `json:"height"`
	Orgs      uint64 `json:"orgs"`
	Votes     uint64 `json:"votes"`
	Proposals uint64 `json:"proposals"`
	Members   uint64 `json:"members"`
}

func (GovernanceRow) TableName() string {
	return "governances"
}
