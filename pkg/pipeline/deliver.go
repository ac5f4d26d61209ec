package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/herald/pkg/telegram"
)

const deliveryChannel = "telegram"

// deliver sends text through sender. An unconfigured sender is skipped with a
// warning; a send failure is returned.
func deliver(ctx context.Context, sender telegram.Sender, obs DeliveryObserver, logger *slog.Logger, text string) error {
	if sender == nil || !sender.Configured() {
		logger.Warn("Telegram credentials not configured, skipping delivery")
		return nil
	}

	err := sender.Send(ctx, text)
	if obs != nil {
		obs.ObserveDelivery(deliveryChannel, err)
	}
	if err != nil {
		return fmt.Errorf("telegram delivery failed: %w", err)
	}
	logger.Info("Delivered to Telegram", "chars", len(text))
	return nil
}
