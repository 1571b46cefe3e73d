package store

import (
	"context"
)

// Store persists committed pool operations. Writers hand records to a channel;
// the store goroutine owns the database connection.
type Store struct {
	ctx           context.Context
	poolChan      chan *PoolRecord
	swapChan      chan *SwapRecord
	liquidityChan chan *LiquidityRecord
	dao           *Dao
}

func NewStore(ctx context.Context, url, scheme, user, passwd string) *Store {
	s := &Store{
		ctx:           ctx,
		poolChan:      make(chan *PoolRecord, 32),
		swapChan:      make(chan *SwapRecord, 32),
		liquidityChan: make(chan *LiquidityRecord, 32),
	}
	s.dao = NewDao(url, scheme, user, passwd)
	return s
}

func (s *Store) Start() {
	go s.store()
}

func (s *Store) Stop() {

}

func (s *Store) store() {
	for {
		select {
		case record := <-s.poolChan:
			s.dao.SavePool(record)
		case record := <-s.swapChan:
			s.dao.SaveSwap(record)
		case record := <-s.liquidityChan:
			s.dao.SaveLiquidity(record)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Store) StorePool(record *PoolRecord) {
	s.poolChan <- record
}

func (s *Store) StoreSwap(record *SwapRecord) {
	s.swapChan <- record
}

func (s *Store) StoreLiquidity(record *LiquidityRecord) {
	s.liquidityChan <- record
}

func (s *Store) GetPool(address string) ([]*PoolRecord, error) {
	return s.dao.SelectPool(address)
}

func (s *Store) GetSwaps(pool string) ([]*SwapRecord, error) {
	return s.dao.SelectSwaps(pool)
}

func (s *Store) GetLiquidity(pool string) ([]*LiquidityRecord, error) {
	return s.dao.SelectLiquidity(pool)
}
