package store

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Dao struct {
	db *gorm.DB
}

func NewDao(url, scheme, user, passwd string) *Dao {
	dao := &Dao{}
	Logger := logger.Default
	Logger = Logger.LogMode(logger.Info)
	db, err := gorm.Open(mysql.Open(user+":"+passwd+"@tcp("+url+")/"+
		scheme+"?charset=utf8"), &gorm.Config{Logger: Logger})
	if err != nil {
		panic(err)
	}
	err = db.AutoMigrate(&PoolRecord{}, &SwapRecord{}, &LiquidityRecord{})
	if err != nil {
		panic(err)
	}
	dao.db = db
	return dao
}

func (dao *Dao) SavePool(record *PoolRecord) error {
	return dao.db.Create(record).Error
}

func (dao *Dao) SaveSwap(record *SwapRecord) error {
	return dao.db.Create(record).Error
}

func (dao *Dao) SaveLiquidity(record *LiquidityRecord) error {
	return dao.db.Create(record).Error
}

func (dao *Dao) SelectPool(address string) ([]*PoolRecord, error) {
	records := make([]*PoolRecord, 0)
	res := dao.db.Where("address = ?", address).Find(&records)
	return records, res.Error
}

func (dao *Dao) SelectSwaps(pool string) ([]*SwapRecord, error) {
	records := make([]*SwapRecord, 0)
	res := dao.db.Where("pool = ?", pool).Find(&records)
	return records, res.Error
}

func (dao *Dao) SelectLiquidity(pool string) ([]*LiquidityRecord, error) {
	records := make([]*LiquidityRecord, 0)
	res := dao.db.Where("pool = ?", pool).Find(&records)
	return records, res.Error
}
