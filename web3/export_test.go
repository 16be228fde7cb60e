package web3

import "time"

func (c *Client) SetPollInterval(d time.Duration) {
	c.pollInterval = d
}
