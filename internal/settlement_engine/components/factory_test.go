package components

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

func TestCreateSettlementService(t *testing.T) {
	cfg := &config.Config{
		Settlement: config.SettlementConfig{
			Timezone:             "Asia/Seoul",
			Timeout:              time.Minute,
			FailureRecordTimeout: 10 * time.Second,
		},
	}

	svc := CreateSettlementService(&passthroughTx{}, &MockSettlementRepo{}, nil, &MockPublisher{}, cfg, nil, discardLogger())
	assert.NotNil(t, svc)
	_, ok := svc.(*service.SettlementServiceImpl)
	assert.True(t, ok)

	recorder := CreateFailureRecorder(&passthroughTx{}, &MockSettlementRepo{}, &MockPublisher{}, cfg, nil, discardLogger())
	_, ok = recorder.(*FailureRecorderImpl)
	assert.True(t, ok)
}

func TestCreateSaleService(t *testing.T) {
	svc := CreateSaleService(nil, nil, &MockPublisher{}, discardLogger())
	assert.NotNil(t, svc)
}
