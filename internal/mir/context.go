package mir

// Context is the registry of every surface and block in a compilation.
// Lookups are by id; iteration follows insertion order.
type Context struct {
	surfaces     map[uint64]*Surface
	surfaceOrder []uint64
	blocks       map[uint64]*Block
	blockOrder   []uint64
}

// NewContext creates an empty registry.
func NewContext() *Context {
	return &Context{
		surfaces: make(map[uint64]*Surface),
		blocks:   make(map[uint64]*Block),
	}
}

// AddSurface registers a surface. Registering the same id twice replaces the
// previous surface but keeps its position.
func (c *Context) AddSurface(s *Surface) {
	if _, exists := c.surfaces[s.ID.ID]; !exists {
		c.surfaceOrder = append(c.surfaceOrder, s.ID.ID)
	}
	c.surfaces[s.ID.ID] = s
}

// AddBlock registers a block.
func (c *Context) AddBlock(b *Block) {
	if _, exists := c.blocks[b.ID.ID]; !exists {
		c.blockOrder = append(c.blockOrder, b.ID.ID)
	}
	c.blocks[b.ID.ID] = b
}

// Surface looks up a surface by id.
func (c *Context) Surface(id SurfaceID) (*Surface, bool) {
	s, ok := c.surfaces[id.ID]
	return s, ok
}

// Block looks up a block by id.
func (c *Context) Block(id BlockID) (*Block, bool) {
	b, ok := c.blocks[id.ID]
	return b, ok
}

// Surfaces returns all surfaces in registration order.
func (c *Context) Surfaces() []*Surface {
	out := make([]*Surface, 0, len(c.surfaceOrder))
	for _, id := range c.surfaceOrder {
		out = append(out, c.surfaces[id])
	}
	return out
}

// Blocks returns all blocks in registration order.
func (c *Context) Blocks() []*Block {
	out := make([]*Block, 0, len(c.blockOrder))
	for _, id := range c.blockOrder {
		out = append(out, c.blocks[id])
	}
	return out
}

// SurfaceByName returns the first surface whose debug name matches.
func (c *Context) SurfaceByName(name string) (*Surface, bool) {
	for _, id := range c.surfaceOrder {
		if s := c.surfaces[id]; s.ID.DebugName == name {
			return s, true
		}
	}
	return nil, false
}
