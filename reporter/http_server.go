// Read-only http surface over the custody task state.
// Fetches data from the task manager and publishes it on http routes.

package reporter

import (
	"net/http"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/TEENet-io/btc-custody-go/custody"
)

const (
	ROUTE_HELLO         = "/hello"
	ROUTE_TASK          = "/task"
	ROUTE_PARTNER_TASKS = "/partner_tasks"
	ROUTE_ADDRESS_SLOT  = "/address_slot"
)

// JSONTask is the wire shape of a task.
type JSONTask struct {
	TaskId          uint64 `json:"task_id"`
	PartnerId       uint64 `json:"partner_id"`
	DepositAddress  string `json:"deposit_address"`
	Status          string `json:"status"`
	TimelockEndTime int64  `json:"timelock_end_time"`
	Deadline        int64  `json:"deadline"`
	Amount          string `json:"amount"`
	FundingTxHash   string `json:"funding_tx_hash,omitempty"`
	FundingTxOut    uint32 `json:"funding_tx_out"`
	TimelockTxHash  string `json:"timelock_tx_hash,omitempty"`
	TimelockTxOut   uint32 `json:"timelock_tx_out"`
	BtcAddress      string `json:"btc_address"`
}

func toJSONTask(t *custody.Task) *JSONTask {
	j := &JSONTask{
		TaskId:          t.TaskId,
		PartnerId:       t.PartnerId,
		DepositAddress:  t.DepositAddress.String(),
		Status:          string(t.Status),
		TimelockEndTime: t.TimelockEndTime,
		Deadline:        t.Deadline,
		Amount:          t.Amount.String(),
		FundingTxOut:    t.FundingTxOut,
		TimelockTxOut:   t.TimelockTxOut,
		BtcAddress:      t.BtcAddress,
	}
	if t.FundingTxHash != (ethcommon.Hash{}) {
		j.FundingTxHash = t.FundingTxHash.String()
	}
	if t.TimelockTxHash != (ethcommon.Hash{}) {
		j.TimelockTxHash = t.TimelockTxHash.String()
	}
	return j
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	mgr *custody.TaskManager
}

func NewHttpReporter(serverIP string, serverPort string, mgr *custody.TaskManager) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		mgr:        mgr,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_TASK, h.Task)
	router.GET(ROUTE_PARTNER_TASKS, h.PartnerTasks)
	router.GET(ROUTE_ADDRESS_SLOT, h.AddressSlot)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// Task serves a single task by id.
func (h *HttpReporter) Task(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	task, err := h.mgr.GetTask(id)
	if err == custody.ErrorTaskNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "No task found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toJSONTask(task)})
}

// PartnerTasks serves the task id list of a partner.
func (h *HttpReporter) PartnerTasks(c *gin.Context) {
	partnerId, err := strconv.ParseUint(c.Query("partner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partner_id must be a positive integer"})
		return
	}

	ids, err := h.mgr.GetPartnerTaskIds(partnerId)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if len(ids) > 0 {
		c.JSON(http.StatusOK, gin.H{"data": ids})
	} else {
		c.JSON(http.StatusNotFound, gin.H{"error": "No tasks found"})
	}
}

// AddressSlot reports whether a deposit address is busy and with which task.
func (h *HttpReporter) AddressSlot(c *gin.Context) {
	addr := c.Query("address")
	if addr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address must be provided"})
		return
	}

	taskId, busy, err := h.mgr.AddressTaskId(ethcommon.HexToAddress(addr))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"busy": busy, "task_id": taskId})
}
