/*
Package client provides a blocking Go client for an rKV server.

A Client holds one connection and serializes requests on it; replies are
matched to requests by wire order. Transient connection failures are
retried transparently up to the configured retry count.

Example usage:

	config := common.ClientConfig{
		Transport: common.ClientTransportConfig{
			Endpoint: "localhost:6379",
		},
		TimeoutSecond: 5,
		RetryCount:    2,
	}

	c, err := client.Connect(config, tcp.NewTCPClientConnector())
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	if err := c.Set("greeting", []byte("hello")); err != nil {
		log.Fatal(err)
	}

	value, found, err := c.Get("greeting")
*/
package client
