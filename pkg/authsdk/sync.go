package authsdk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/authsession/pkg/localstore"
	"github.com/aussiebroadwan/authsession/pkg/pipeline"
)

const objectClient = "client"

// syncResponse replaces the client snapshot with the one piggy-backed on
// resp and persists the active session id and device token. It is the only
// writer of State and of the local store.
func (c *SDKClient) syncResponse(ctx context.Context, _ *pipeline.Request, resp *pipeline.Response) error {
	if token := resp.Header.Get("Authorization"); token != "" && token != c.state.DeviceToken() {
		c.state.SetDeviceToken(token)
		if err := c.store.Set(ctx, localstore.KeyDeviceToken, token); err != nil {
			return fmt.Errorf("persist device token: %w", err)
		}
	}

	if !resp.OK() {
		return nil
	}

	client, err := snapshotOf(resp.Body)
	if err != nil || client == nil {
		return err
	}

	if err := client.Validate(); err != nil {
		c.logger.Warn("inconsistent client snapshot", "error", err)
	}
	c.state.Replace(client)

	if client.LastActiveSessionID == "" {
		if err := c.store.Delete(ctx, localstore.KeyActiveSessionID); err != nil {
			return fmt.Errorf("clear active session: %w", err)
		}
		return nil
	}
	if err := c.store.Set(ctx, localstore.KeyActiveSessionID, client.LastActiveSessionID); err != nil {
		return fmt.Errorf("persist active session: %w", err)
	}
	return nil
}

// snapshotOf extracts the client from an envelope: the piggy-backed client,
// or the response itself when it is one.
func snapshotOf(body []byte) (*Client, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Client != nil {
		return env.Client, nil
	}

	if objectOf(env.Response) != objectClient {
		return nil, nil
	}
	var client Client
	if err := json.Unmarshal(env.Response, &client); err != nil {
		return nil, fmt.Errorf("decode client: %w", err)
	}
	return &client, nil
}
