package store

const (
	LiquidityDeposit  = "deposit"
	LiquidityWithdraw = "withdraw"
)

type PoolRecord struct {
	Id        uint64 `gorm:"primaryKey;autoIncrement"`
	Address   string `gorm:"type:varchar(48);uniqueIndex;not null"`
	TokenA    string `gorm:"type:varchar(48);not null"`
	TokenB    string `gorm:"type:varchar(48);not null"`
	PoolToken string `gorm:"type:varchar(48);not null"`
	Slot      uint64 `gorm:"type:bigint(20);not null"`
}

type SwapRecord struct {
	Id        uint64 `gorm:"primaryKey;autoIncrement"`
	Pool      string `gorm:"type:varchar(48);index;not null"`
	TokenIn   string `gorm:"type:varchar(48);not null"`
	AmountIn  uint64 `gorm:"type:bigint(20);not null"`
	TokenOut  string `gorm:"type:varchar(48);not null"`
	AmountOut uint64 `gorm:"type:bigint(20);not null"`
	Slot      uint64 `gorm:"type:bigint(20);not null"`
}

type LiquidityRecord struct {
	Id       uint64 `gorm:"primaryKey;autoIncrement"`
	Pool     string `gorm:"type:varchar(48);index;not null"`
	Kind     string `gorm:"type:varchar(16);not null"`
	AmountA  uint64 `gorm:"type:bigint(20);not null"`
	AmountB  uint64 `gorm:"type:bigint(20);not null"`
	LpAmount uint64 `gorm:"type:bigint(20);not null"`
	Slot     uint64 `gorm:"type:bigint(20);not null"`
}
