package agent

import (
	"net/http"

	"github.com/calehh/hac-gov/contract"
	"github.com/calehh/hac-gov/space"
	"github.com/calehh/hac-gov/tally"
	"github.com/calehh/hac-gov/types"
	"github.com/gin-gonic/gin"
)

// Service serves the indexed chain data and the committed document space.
type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	sp         space.Space
	listenAddr string
}

func NewService(ListenAddr string, indexer *ChainIndexer, sp space.Space) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		sp:         sp,
		listenAddr: ListenAddr,
	}
	s.engine.POST("/getOutputs", s.handleGetOutputs)
	s.engine.POST("/getReceipts", s.handleGetReceipts)
	s.engine.POST("/getGovernance", s.handleGetGovernance)
	s.engine.POST("/getDocuments", s.handleGetDocuments)
	s.engine.POST("/getVoteResult", s.handleGetVoteResult)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

func (s *Service) Start() error {
	return s.engine.Run(s.listenAddr)
}

type GetOutputsResponse struct {
	Outputs []OutputRow `json:"outputs"`
	Total   uint64      `json:"total"`
}

func (s *Service) handleGetOutputs(c *gin.Context) {
	var requestData OutputFilter
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, total, err := s.indexer.getOutputs(requestData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetOutputsResponse{Outputs: rows, Total: total})
}

type GetReceiptsResponse struct {
	Receipts []ReceiptRow `json:"receipts"`
	Total    uint64       `json:"total"`
}

func (s *Service) handleGetReceipts(c *gin.Context) {
	var requestData ReceiptFilter
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, total, err := s.indexer.getReceipts(requestData)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetReceiptsResponse{Receipts: rows, Total: total})
}

type GetGovernanceReq struct {
	Contract string `json:"contract" binding:"required"`
}

func (s *Service) handleGetGovernance(c *gin.Context) {
	var requestData GetGovernanceReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, err := s.indexer.getGovernance(requestData.Contract)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "governance not found"})
		return
	}
	c.JSON(http.StatusOK, row)
}

type GetDocumentsReq struct {
	Space  string         `json:"space" binding:"required"`
	Equals map[string]any `json:"equals"`
	Limit  int            `json:"limit"`
	Facets []string       `json:"facets"`
}

func (s *Service) handleGetDocuments(c *gin.Context) {
	var requestData GetDocumentsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.Limit <= 0 || requestData.Limit > MaxPageSize {
		requestData.Limit = DefaultPageSize
	}
	res, err := s.sp.FindMany(c.Request.Context(), requestData.Space, space.Query{
		Equals: requestData.Equals,
		Limit:  requestData.Limit,
		Facets: requestData.Facets,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type GetVoteResultReq struct {
	Space          string `json:"space" binding:"required"`
	VoteProposalID string `json:"voteProposalId" binding:"required"`
	MaxVoters      int    `json:"maxVoters"`
}

type GetVoteResultResponse struct {
	Result     tally.Result   `json:"result"`
	Voters     int            `json:"voters"`
	Settlement space.Document `json:"settlement,omitempty"`
}

// handleGetVoteResult tallies the committed votes of a vote proposal and
// attaches its settlement once it is closed.
func (s *Service) handleGetVoteResult(c *gin.Context) {
	var requestData GetVoteResultReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.MaxVoters <= 0 || requestData.MaxVoters > MaxPageSize {
		requestData.MaxVoters = MaxPageSize
	}
	ctx := c.Request.Context()
	res, err := s.sp.FindMany(ctx, requestData.Space, space.Query{
		Equals: map[string]any{
			space.FieldDocType: types.DocTypeVote,
			"voteProposalId":   requestData.VoteProposalID,
		},
		Limit: requestData.MaxVoters,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	r, err := tally.FromDocuments(res.Hits)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	settlement, err := s.sp.FindOne(ctx, requestData.Space, space.Key{
		ID:   contract.SettlementID(requestData.VoteProposalID),
		Type: types.DocTypeCloseVote,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, GetVoteResultResponse{Result: r, Voters: len(res.Hits), Settlement: settlement})
}
