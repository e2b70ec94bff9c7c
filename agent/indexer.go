package agent

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/hac-gov/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// BlockSource is the part of the CometBFT RPC client the indexer follows.
type BlockSource interface {
	Status(ctx context.Context) (*ctypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error)
}

// ChainIndexer records the outputs, receipts and counters emitted by
// committed blocks.
type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           BlockSource
	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	c, err := newChainIndexer(logger, db, cli)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.Url = chainUrl
	return c, nil
}

func newChainIndexer(logger cmtlog.Logger, db *gorm.DB, cli BlockSource) (*ChainIndexer, error) {
	if err := db.AutoMigrate(&Height{}, &OutputRow{}, &ReceiptRow{}, &GovernanceRow{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &ChainIndexer{
		logger: logger.With("module", "indexer"),
		Height: int64(h.Height + 1),
		db:     db,
		cli:    cli,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventReceiptType:    c.handleEventReceipt,
		types.EventOutputType:     c.handleEventOutput,
		types.EventSpendType:      c.handleEventSpend,
		types.EventGovernanceType: c.handleEventGovernance,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

var ErrBadEvent = errors.New("malformed event")

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventReceipt(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventReceipt(event)
	if ev == nil {
		return ErrBadEvent
	}
	row := ReceiptRow{
		Id:       ev.ID,
		Height:   uint64(height),
		Action:   ev.Action,
		Contract: ev.Contract,
		Caller:   ev.Caller,
		Owner:    ev.Owner,
		Title:    ev.Title,
		Subtitle: ev.Subtitle,
		Payload:  string(ev.Payload),
	}
	return db.Save(&row).Error
}

func (c *ChainIndexer) handleEventOutput(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventOutput(event)
	if ev == nil {
		return ErrBadEvent
	}
	row := OutputRow{
		Id:       ev.ID,
		Height:   uint64(height),
		Contract: ev.Contract,
		Owner:    ev.Owner,
		Symbol:   ev.Symbol,
		Issuer:   ev.Issuer,
		Decimals: ev.Decimals,
		Amount:   ev.Amount.String(),
		Minted:   ev.Minted,
	}
	return db.Save(&row).Error
}

func (c *ChainIndexer) handleEventSpend(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventSpend(event)
	if ev == nil {
		return ErrBadEvent
	}
	// genesis outputs are never announced by an event
	return db.Model(&OutputRow{}).Where("id = ?", ev.ID).Updates(map[string]interface{}{
		"spent":        true,
		"spent_height": uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventGovernance(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventGovernance(event)
	if ev == nil {
		return ErrBadEvent
	}
	row := GovernanceRow{
		Contract:  ev.Contract,
		Height:    uint64(height),
		Orgs:      ev.Counters.Orgs,
		Votes:     ev.Counters.Votes,
		Proposals: ev.Counters.Proposals,
		Members:   ev.Counters.Members,
	}
	return db.Save(&row).Error
}

// IndexBlock records the events of the successful txs of one block and moves
// the saved height to it, in one sql transaction.
func (c *ChainIndexer) IndexBlock(ctx context.Context, height int64) (err error) {
	res, err := c.cli.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	db := c.db.Begin()
	if err = db.Error; err != nil {
		return err
	}
	defer func() {
		if err != nil {
			db.Rollback()
		}
	}()
	for _, txRes := range res.TxsResults {
		if txRes.Code != 0 {
			continue
		}
		for _, event := range txRes.Events {
			if err = c.handleEvent(db, event, height); err != nil {
				c.logger.Error("index event fail", "height", height, "type", event.Type, "err", err)
				return err
			}
		}
	}
	if err = db.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		return err
	}
	return db.Commit().Error
}

// Sync indexes every block up to the latest one reported by the node.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	st, err := c.cli.Status(ctx)
	if err != nil {
		return err
	}
	for st.SyncInfo.LatestBlockHeight >= c.Height {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.IndexBlock(ctx, c.Height); err != nil {
			return err
		}
		c.logger.Debug("indexed block", "height", c.Height)
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

func page(db *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 0 {
		page = 0
	}
	return db.Offset(page * pageSize).Limit(pageSize)
}

type OutputFilter struct {
	Owner    string `json:"owner"`
	Contract string `json:"contract"`
	Spent    bool   `json:"spent"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

func (c *ChainIndexer) getOutputs(f OutputFilter) (rows []OutputRow, total uint64, err error) {
	q := c.db.Model(&OutputRow{})
	if f.Owner != "" {
		q = q.Where("owner = ?", f.Owner)
	}
	if f.Contract != "" {
		q = q.Where("contract = ?", f.Contract)
	}
	if !f.Spent {
		q = q.Where("spent = ?", false)
	}
	if err = q.Count(&total).Error; err != nil {
		return
	}
	rows = make([]OutputRow, 0)
	err = page(q.Order("height desc, id"), f.Page, f.PageSize).Find(&rows).Error
	return
}

type ReceiptFilter struct {
	Owner    string `json:"owner"`
	Contract string `json:"contract"`
	Action   string `json:"action"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

func (c *ChainIndexer) getReceipts(f ReceiptFilter) (rows []ReceiptRow, total uint64, err error) {
	q := c.db.Model(&ReceiptRow{})
	if f.Owner != "" {
		q = q.Where("owner = ?", f.Owner)
	}
	if f.Contract != "" {
		q = q.Where("contract = ?", f.Contract)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if err = q.Count(&total).Error; err != nil {
		return
	}
	rows = make([]ReceiptRow, 0)
	err = page(q.Order("height desc, id"), f.Page, f.PageSize).Find(&rows).Error
	return
}

func (c *ChainIndexer) getGovernance(contract string) (*GovernanceRow, error) {
	var row GovernanceRow
	if err := c.db.Where("contract = ?", contract).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
