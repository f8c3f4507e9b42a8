package nms

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PortsForDevices fetches port records for every device ID, fanning out
// at most MaxConcurrentQueries requests at a time. The join barrier
// tolerates partial failure: devices whose sub-query failed are counted
// in FetchResult.Failed and the successful subset is returned. The
// result preserves the input device order and deduplicates by port_id,
// so identical upstream data always yields identical output.
//
// ErrUnavailable is returned only when every sub-query failed.
func (c *Client) PortsForDevices(ctx context.Context, deviceIDs []int) (FetchResult, error) {
	if len(deviceIDs) == 0 {
		return FetchResult{}, nil
	}

	perDevice := make([][]RawRecord, len(deviceIDs))
	sem := make(chan struct{}, c.maxConcurrent)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)

	for i, id := range deviceIDs {
		if ctx.Err() != nil {
			// Deadline hit: count the devices we never queried as failures
			// and return whatever already completed.
			mu.Lock()
			failed += len(deviceIDs) - i
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(slot, deviceID int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := c.PortsForDevice(ctx, deviceID)
			if err != nil {
				c.logger.Warn("port query failed for device",
					zap.Int("device_id", deviceID),
					zap.Error(err),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			perDevice[slot] = records
		}(i, id)
	}

	wg.Wait()

	result := FetchResult{Failed: failed}
	seen := make(map[int64]struct{})
	for _, records := range perDevice {
		for _, rec := range records {
			id, ok := recInt(rec, "port_id")
			if ok {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
			}
			result.Records = append(result.Records, rec)
		}
	}

	if failed == len(deviceIDs) {
		return result, ErrUnavailable
	}
	return result, nil
}
