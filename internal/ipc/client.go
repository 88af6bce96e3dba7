package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SessionStart launches a new engraving session.
func (c *Client) SessionStart(req SessionStartRequest) (*SessionStartResponse, error) {
	var resp SessionStartResponse
	if err := c.client.Call("Burnloop.SessionStart", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionStop tears down the active session.
func (c *Client) SessionStop() (*SessionStopResponse, error) {
	var resp SessionStopResponse
	if err := c.client.Call("Burnloop.SessionStop", SessionStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NextLayer advances the active session to the next layer.
func (c *Client) NextLayer() (*NextLayerResponse, error) {
	var resp NextLayerResponse
	if err := c.client.Call("Burnloop.NextLayer", NextLayerRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TriggerReboot resets the trigger firmware.
func (c *Client) TriggerReboot() (*TriggerRebootResponse, error) {
	var resp TriggerRebootResponse
	if err := c.client.Call("Burnloop.TriggerReboot", TriggerRebootRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves daemon and session status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Burnloop.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ports lists serial devices visible to the daemon host.
func (c *Client) Ports() (*PortsResponse, error) {
	var resp PortsResponse
	if err := c.client.Call("Burnloop.Ports", PortsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PresetList returns all presets sorted by name.
func (c *Client) PresetList() (*PresetListResponse, error) {
	var resp PresetListResponse
	if err := c.client.Call("Burnloop.PresetList", PresetListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PresetSet creates or updates a preset.
func (c *Client) PresetSet(preset Preset) (*PresetSetResponse, error) {
	var resp PresetSetResponse
	if err := c.client.Call("Burnloop.PresetSet", PresetSetRequest{Preset: preset}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PresetRemove deletes a preset by name.
func (c *Client) PresetRemove(name string) (*PresetRemoveResponse, error) {
	var resp PresetRemoveResponse
	if err := c.client.Call("Burnloop.PresetRemove", PresetRemoveRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StencilList returns all stencil mappings sorted by name.
func (c *Client) StencilList() (*StencilListResponse, error) {
	var resp StencilListResponse
	if err := c.client.Call("Burnloop.StencilList", StencilListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StencilSet maps a stencil name to an existing preset.
func (c *Client) StencilSet(name, preset string) (*StencilSetResponse, error) {
	var resp StencilSetResponse
	if err := c.client.Call("Burnloop.StencilSet", StencilSetRequest{Name: name, Preset: preset}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StencilRemove deletes a stencil mapping.
func (c *Client) StencilRemove(name string) (*StencilRemoveResponse, error) {
	var resp StencilRemoveResponse
	if err := c.client.Call("Burnloop.StencilRemove", StencilRemoveRequest{Name: name}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns recent session records.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("Burnloop.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Burnloop.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Burnloop.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Burnloop.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
