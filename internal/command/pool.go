package command

// Pool recycles command shells so steady-state traffic does not allocate.
// Access is confined to the executor's dispatch context; there is no
// locking. Idle compacts the pool, Connecting pre-sizes it to the peer
// count before negotiation begins.
type Pool struct {
	free []*Command
}

var pool = &Pool{}

// CommandPool returns the process-wide pool.
func CommandPool() *Pool { return pool }

// Resize grows the spare capacity to at least n shells.
func (p *Pool) Resize(n int) {
	for len(p.free) < n {
		p.free = append(p.free, &Command{})
	}
}

// ShrinkToFit releases all spare shells.
func (p *Pool) ShrinkToFit() {
	p.free = nil
}

// Spare reports the number of recycled shells available.
func (p *Pool) Spare() int { return len(p.free) }

func (p *Pool) get() *Command {
	if n := len(p.free); n > 0 {
		c := p.free[n-1]
		p.free = p.free[:n-1]
		return c
	}
	return &Command{}
}

func (p *Pool) put(c *Command) {
	c.kind = 0
	c.name = ""
	c.args = c.args[:0]
	p.free = append(p.free, c)
}

func build(kind Kind, name string, args ...string) *Command {
	c := pool.get()
	c.kind = kind
	c.name = name
	c.args = append(c.args, args...)
	return c
}
